/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did provides the Decentralized Identifier and DID Document models
// used across the engine: DID syntax parsing, purpose-indexed verification
// method lookup, service endpoint extraction and public key decoding.
package did

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDID is returned when a string does not match the
// did:<method>:<method-specific-id> syntax.
var ErrInvalidDID = errors.New("invalid did format")

// DID is a parsed Decentralized Identifier.
type DID struct {
	Method           string
	MethodSpecificID string
}

// String returns the string representation of the DID.
func (d *DID) String() string {
	return fmt.Sprintf("did:%s:%s", d.Method, d.MethodSpecificID)
}

// Parse parses a DID string of the form did:<method>:<method-specific-id>.
func Parse(didStr string) (*DID, error) {
	const prefix = "did:"

	if !strings.HasPrefix(didStr, prefix) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDID, didStr)
	}

	method, msID, found := strings.Cut(didStr[len(prefix):], ":")
	if !found || method == "" || msID == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDID, didStr)
	}

	return &DID{Method: method, MethodSpecificID: msID}, nil
}

// IsValid reports whether the given string is a syntactically valid DID.
func IsValid(didStr string) bool {
	_, err := Parse(didStr)

	return err == nil
}
