package utils

import "errors"

type PermError string

func (e PermError) Error() string {
	return string(e)
}

func (e PermError) IsPermanent() bool {
	return true
}

// IsPermanent reports whether any error in the chain declares itself permanent.
func IsPermanent(err error) bool {
	var p interface{ IsPermanent() bool }
	if errors.As(err, &p) {
		return p.IsPermanent()
	}
	return false
}
