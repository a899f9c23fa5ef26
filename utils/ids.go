package utils

import (
	"crypto/rand"
	"math/big"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentIDLength is the length of generated request ids, matching the ids
// issued by the predecessor system.
const DocumentIDLength = 20

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewDocumentID returns a random 20-character alphanumeric id.
func NewDocumentID() string {
	buf := make([]byte, DocumentIDLength)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken
			panic(err)
		}
		buf[i] = idAlphabet[n.Int64()]
	}
	return string(buf)
}

// NewObjectID returns a fresh ObjectID in its 24-character hex form.
func NewObjectID() string {
	return primitive.NewObjectID().Hex()
}

// IsObjectIDHex reports whether id is shaped like an ObjectID.
func IsObjectIDHex(id string) bool {
	return primitive.IsValidObjectID(id)
}

// CanonicalObjectID returns the lowercase hex form of an ObjectID-shaped id.
func CanonicalObjectID(id string) (string, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}
