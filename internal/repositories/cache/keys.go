package cache

import (
	"fmt"
	"strings"
)

type EntityType string

const (
	EntityUser   EntityType = "user"
	EntityWallet EntityType = "wallet"
)

type KeyType string

const (
	KeyID   KeyType = "id"
	KeyUser KeyType = "user"
)

// Key builds "<entity>:<key type>:<value>".
func Key(entity EntityType, keyType KeyType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}

// ParseKey splits a key built by Key. It returns false for keys with
// fewer than three parts.
func ParseKey(key string) (EntityType, KeyType, string, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return EntityType(parts[0]), KeyType(parts[1]), parts[2], true
}
