package kundli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAyanamsa = "Lahiri"

	EngineLocal    = "local-fallback"
	EngineExternal = "external-api"

	unknown = "Unknown"
)

// ErrInvalidInput дата или время рождения в неверном формате.
var ErrInvalidInput = errors.New("kundli: invalid birth date or time")

var planets = []string{"Sun", "Moon", "Mars", "Mercury", "Jupiter", "Venus", "Saturn", "Rahu", "Ketu"}

var zodiacSigns = []string{
	"Aries", "Taurus", "Gemini", "Cancer",
	"Leo", "Virgo", "Libra", "Scorpio",
	"Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

var nakshatras = []string{
	"Ashwini", "Bharani", "Krittika", "Rohini", "Mrigashira", "Ardra",
	"Punarvasu", "Pushya", "Ashlesha", "Magha", "Purva Phalguni", "Uttara Phalguni",
	"Hasta", "Chitra", "Swati", "Vishakha", "Anuradha", "Jyeshtha",
	"Mula", "Purva Ashadha", "Uttara Ashadha", "Shravana", "Dhanishta", "Shatabhisha",
	"Purva Bhadrapada", "Uttara Bhadrapada", "Revati",
}

// Input данные рождения. Порядок полей входит в ключ кэша.
type Input struct {
	DateOfBirth  string  `json:"dateOfBirth"`
	TimeOfBirth  string  `json:"timeOfBirth"`
	PlaceOfBirth string  `json:"placeOfBirth"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Timezone     string  `json:"timezone"`
}

type Metadata struct {
	Engine      string `json:"engine"`
	Ayanamsa    string `json:"ayanamsa"`
	GeneratedAt string `json:"generatedAt"`
}

type PlanetPosition struct {
	Planet     string  `json:"planet"`
	Sign       string  `json:"sign"`
	Degree     float64 `json:"degree"`
	House      int     `json:"house"`
	Retrograde bool    `json:"retrograde"`
}

type House struct {
	Number  int      `json:"number"`
	Sign    string   `json:"sign"`
	Degree  float64  `json:"degree"`
	Planets []string `json:"planets"`
}

type Chart struct {
	Houses    []House `json:"houses"`
	Ascendant string  `json:"ascendant,omitempty"`
}

// Charts варги: D1 (Rasi), D9 (Navamsa), D10 (Dasamsa) и Bhava.
type Charts struct {
	D1    Chart `json:"d1"`
	D9    Chart `json:"d9"`
	D10   Chart `json:"d10"`
	Bhava Chart `json:"bhava"`
}

// Result гороскоп в том виде, в каком он хранится и отдаётся клиенту.
type Result struct {
	Input     Input            `json:"input"`
	Metadata  Metadata         `json:"metadata"`
	Planets   []PlanetPosition `json:"planets"`
	Houses    []House          `json:"houses"`
	Ascendant string           `json:"ascendant"`
	Nakshatra string           `json:"nakshatra"`
	Rashi     string           `json:"rashi"`
	SunSign   string           `json:"sunSign"`
	MoonSign  string           `json:"moonSign"`
	Charts    *Charts          `json:"charts,omitempty"`
	Raw       json.RawMessage  `json:"raw,omitempty"`
}

// CacheKey sha256 от JSON входных данных вместе с аянамшей.
func CacheKey(in Input, ayanamsa string) string {
	payload := struct {
		Input
		Ayanamsa string `json:"ayanamsa"`
	}{Input: in, Ayanamsa: ayanamsa}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// структура из строк и чисел всегда кодируется
	_ = enc.Encode(payload)

	sum := sha256.Sum256(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:])
}

// Validate проверяет формат даты (YYYY-MM-DD) и времени (HH:MM) рождения.
func Validate(in Input) error {
	if _, err := parseDate(in.DateOfBirth); err != nil {
		return err
	}
	_, _, err := parseClock(in.TimeOfBirth)
	return err
}

// LocalEngine детерминированный расчёт без внешнего сервиса.
// Позиции выводятся из момента рождения и повторяются для одинаковых входных данных.
type LocalEngine struct {
	now func() time.Time
}

func NewLocalEngine() *LocalEngine {
	return &LocalEngine{now: time.Now}
}

// Calculate строит гороскоп.
func (e *LocalEngine) Calculate(_ context.Context, in Input, ayanamsa string) (*Result, error) {
	date, err := parseDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}
	hours, minutes, err := parseClock(in.TimeOfBirth)
	if err != nil {
		return nil, err
	}

	birthMs := date.UnixMilli() + int64(hours*60+minutes)*60*1000
	positions := planetPositions(birthMs)
	ascendant := ascendantSign(birthMs, in.Latitude)
	houses := buildHouses(ascendant, positions)
	moon := positions[1]
	sun := positions[0]

	resolved := in
	if resolved.Timezone == "" {
		resolved.Timezone = timezoneFromLongitude(in.Longitude)
	}

	return &Result{
		Input: resolved,
		Metadata: Metadata{
			Engine:      EngineLocal,
			Ayanamsa:    ayanamsa,
			GeneratedAt: formatGeneratedAt(e.now()),
		},
		Planets:   positions,
		Houses:    houses,
		Ascendant: zodiacSigns[ascendant],
		Nakshatra: nakshatraFor(moon),
		Rashi:     moon.Sign,
		SunSign:   sun.Sign,
		MoonSign:  moon.Sign,
		Charts: &Charts{
			D1:    Chart{Houses: houses, Ascendant: zodiacSigns[ascendant]},
			D9:    Chart{Houses: houses, Ascendant: zodiacSigns[ascendant]},
			D10:   Chart{Houses: houses, Ascendant: zodiacSigns[ascendant]},
			Bhava: Chart{Houses: houses},
		},
	}, nil
}

func planetPositions(birthMs int64) []PlanetPosition {
	seed := posMod(birthMs, 1000000)
	out := make([]PlanetPosition, 0, len(planets))
	for i, name := range planets {
		planetSeed := (seed + int64(i)*10000) % 360
		sign := int(planetSeed/30) % 12
		out = append(out, PlanetPosition{
			Planet:     name,
			Sign:       zodiacSigns[sign],
			Degree:     round2(float64(planetSeed % 30)),
			House:      (sign+1)%12 + 1,
			Retrograde: (seed+int64(i)*5000)%100 < 20,
		})
	}
	return out
}

func ascendantSign(birthMs int64, latitude float64) int {
	seed := math.Mod(float64(birthMs)+latitude*1000, 360)
	if seed < 0 {
		seed += 360
	}
	return int(math.Floor(seed/30)) % 12
}

func buildHouses(ascendant int, positions []PlanetPosition) []House {
	houses := make([]House, 0, 12)
	for i := 0; i < 12; i++ {
		occupants := []string{}
		for _, p := range positions {
			if p.House == i+1 {
				occupants = append(occupants, p.Planet)
			}
		}
		houses = append(houses, House{
			Number:  i + 1,
			Sign:    zodiacSigns[(ascendant+i)%12],
			Degree:  15.0,
			Planets: occupants,
		})
	}
	return houses
}

func nakshatraFor(moon PlanetPosition) string {
	sign := signIndex(moon.Sign)
	if sign < 0 {
		return unknown
	}
	total := float64(sign*30) + moon.Degree
	return nakshatras[int(math.Floor(total/13.333))%27]
}

func signIndex(name string) int {
	for i, s := range zodiacSigns {
		if s == name {
			return i
		}
	}
	return -1
}

// timezoneFromLongitude грубая оценка смещения: 15° долготы на час.
func timezoneFromLongitude(longitude float64) string {
	offset := int(math.Round(longitude / 15))
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%d:00", sign, offset)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidInput
}

func parseClock(raw string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, ErrInvalidInput
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, 0, ErrInvalidInput
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, 0, ErrInvalidInput
	}
	return hours, minutes, nil
}

func formatGeneratedAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func posMod(a, m int64) int64 {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
