package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

func hmacSHA256(secret string, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// verifyHex сравнивает hex-подпись за постоянное время. Пустой секрет или подпись не проходят.
func verifyHex(secret, signature string, parts ...[]byte) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, hmacSHA256(secret, parts...))
}

// verifyBase64 то же для base64-подписи.
func verifyBase64(secret, signature string, parts ...[]byte) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, hmacSHA256(secret, parts...))
}

// SignHex подписывает склеенные parts ключом secret и возвращает hex(HMAC-SHA256).
func SignHex(secret string, parts ...[]byte) string {
	return hex.EncodeToString(hmacSHA256(secret, parts...))
}

// SignBase64 то же, что SignHex, в кодировке base64.
func SignBase64(secret string, parts ...[]byte) string {
	return base64.StdEncoding.EncodeToString(hmacSHA256(secret, parts...))
}
