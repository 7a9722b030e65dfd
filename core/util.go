package core

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var NowFunc = time.Now // mockable

// Now returns the current UTC time, truncated to milliseconds as stored by the document store.
func Now() time.Time {
	return NowFunc().UTC().Truncate(time.Millisecond)
}

// NewID returns a new document identifier (24 hex characters).
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsID reports whether s is a well formed document identifier.
func IsID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
