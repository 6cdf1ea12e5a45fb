package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDecl    = "bingen/decl/v1"
	DomainModule  = "bingen/module/v1"
	DomainProgram = "bingen/program/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DeclHash computes the structural identity of a type declaration from its
// canonical shape. Two declarations with equal shapes hash equally; field and
// variant order is part of the shape.
func DeclHash(shape IRValue) (string, error) {
	canonical, err := MarshalCanonical(shape)
	if err != nil {
		return "", fmt.Errorf("DeclHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDecl, canonical), nil
}

// ModuleHash computes the cache key of a compilation request: the module
// source bytes, the selected top-level definition and the target package.
func ModuleHash(source []byte, top, pkg string) (string, error) {
	obj := IRObject{
		"source":  IRString(hex.EncodeToString(source)),
		"top":     IRString(top),
		"package": IRString(pkg),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ModuleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModule, canonical), nil
}

// ProgramHash computes the identity of generated program text.
func ProgramHash(source []byte) string {
	return hashWithDomain(DomainProgram, source)
}
