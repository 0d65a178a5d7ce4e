package usecase

import "errors"

var errMissingCredentials = errors.New("email and password are required")
