package common

import "errors"

// ErrAlreadyExists нарушение уникальности, общее для всех репозиториев.
var ErrAlreadyExists = errors.New("entity already exists")
