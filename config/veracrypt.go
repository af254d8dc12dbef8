package config

import (
	"fmt"
	"sort"
)

// VeracryptAlgorithms maps display names of supported encryption algorithms
// to the tokens the veracrypt CLI expects.
var VeracryptAlgorithms = map[string]string{
	"AES":                   "aes",
	"Serpent":               "serpent",
	"Twofish":               "twofish",
	"AES(Twofish)":          "aes-twofish",
	"AES(Twofish(Serpent))": "aes-twofish-serpent",
	"Serpent(AES)":          "serpent-aes",
	"Serpent(Twofish(AES))": "serpent-twofish-aes",
	"Twofish(Serpent)":      "twofish-serpent",
}

// VeracryptHashAlgorithms maps display names of supported hash algorithms to
// the tokens the veracrypt CLI expects.
var VeracryptHashAlgorithms = map[string]string{
	"SHA 256":    "sha-256",
	"SHA 512":    "sha-512",
	"Whirlpool":  "whirlpool",
	"RIPEMD 160": "ripemd-160",
}

// DefaultVeracryptAlgorithm is the default encryption cascade.
const DefaultVeracryptAlgorithm = "AES(Twofish(Serpent))"

// DefaultVeracryptHashAlgorithm is the default hash algorithm.
const DefaultVeracryptHashAlgorithm = "Whirlpool"

// ResolveAlgorithm validates a display or CLI name against table and returns
// the CLI token.
func ResolveAlgorithm(table map[string]string, name string) (string, error) {
	if token, ok := table[name]; ok {
		return token, nil
	}
	for _, token := range table {
		if token == name {
			return token, nil
		}
	}
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)
	return "", fmt.Errorf("unknown algorithm %q, supported: %v", name, names)
}
