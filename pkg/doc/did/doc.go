/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
)

var logger = log.New("didcomm-go/doc/did")

// Purpose is a verification relationship in a DID document.
type Purpose string

// Verification relationships.
const (
	Authentication       = Purpose("authentication")
	AssertionMethod      = Purpose("assertionMethod")
	KeyAgreement         = Purpose("keyAgreement")
	CapabilityInvocation = Purpose("capabilityInvocation")
	CapabilityDelegation = Purpose("capabilityDelegation")
)

var (
	// ErrNoKeyForPurpose is returned when a document declares no verification
	// method reference for the requested purpose.
	ErrNoKeyForPurpose = errors.New("no key declared for purpose")
	// ErrDanglingReference is returned, under the strict-references policy,
	// when a purpose entry references a verification method the document
	// does not declare.
	ErrDanglingReference = errors.New("verification method reference not found in document")
	// ErrServiceNotFound is returned when no service of the requested type
	// is declared in the document.
	ErrServiceNotFound = errors.New("service not found in document")
)

// Doc is a W3C DID Document.
type Doc struct {
	Context              StringOrArray        `json:"@context,omitempty"`
	ID                   string               `json:"id"`
	Controller           string               `json:"controller,omitempty"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []VerificationRef    `json:"authentication,omitempty"`
	AssertionMethod      []VerificationRef    `json:"assertionMethod,omitempty"`
	KeyAgreement         []VerificationRef    `json:"keyAgreement,omitempty"`
	CapabilityInvocation []VerificationRef    `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []VerificationRef    `json:"capabilityDelegation,omitempty"`
	Service              []Service            `json:"service,omitempty"`
	Created              string               `json:"created,omitempty"`
	Updated              string               `json:"updated,omitempty"`
}

// VerificationMethod is a public key declaration in a DID document.
type VerificationMethod struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Controller         string          `json:"controller,omitempty"`
	PublicKeyJwk       json.RawMessage `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58    string          `json:"publicKeyBase58,omitempty"`
}

// VerificationRef is an entry in a verification relationship list: either a
// string reference to a method declared under verificationMethod, or an
// inline (embedded) verification method.
type VerificationRef struct {
	ID       string
	Embedded *VerificationMethod
}

// UnmarshalJSON accepts both the string-reference and embedded-object forms.
func (r *VerificationRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}

	r.Embedded = &VerificationMethod{}

	return json.Unmarshal(data, r.Embedded)
}

// MarshalJSON writes the string form for references and the object form for
// embedded methods.
func (r VerificationRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}

	return json.Marshal(r.ID)
}

// Service is a service endpoint declaration in a DID document.
// The endpoint value may be a bare URI string or an object with a uri field.
type Service struct {
	ID              string          `json:"id,omitempty"`
	Type            string          `json:"type"`
	ServiceEndpoint json.RawMessage `json:"serviceEndpoint"`
}

// StringOrArray unmarshals a JSON value that may be a single string or an
// array of strings (eg. the @context field).
type StringOrArray []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringOrArray) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}

		*s = []string{single}

		return nil
	}

	return json.Unmarshal(data, (*[]string)(s))
}

// ParseDocument parses a DID document from its JSON representation.
func ParseDocument(data []byte) (*Doc, error) {
	doc := &Doc{}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse did document: %w", err)
	}

	if doc.ID == "" {
		return nil, fmt.Errorf("parse did document: missing id")
	}

	return doc, nil
}

// JSONBytes serializes the document to JSON.
func (doc *Doc) JSONBytes() ([]byte, error) {
	return json.Marshal(doc)
}

// ResolutionOpts holds options for verification method resolution.
type ResolutionOpts struct {
	strictReferences bool
}

// ResolutionOpt configures verification method resolution.
type ResolutionOpt func(*ResolutionOpts)

// WithStrictReferences makes a dangling verification method reference a hard
// error instead of the default soft skip. A document claiming a key it
// cannot substantiate is then rejected.
func WithStrictReferences() ResolutionOpt {
	return func(o *ResolutionOpts) {
		o.strictReferences = true
	}
}

// VerificationMethods resolves the purpose's reference list into concrete
// verification methods, in document order. String references are looked up
// in verificationMethod; unresolved references are skipped with a warning
// unless WithStrictReferences is set.
func (doc *Doc) VerificationMethods(purpose Purpose, opts ...ResolutionOpt) ([]VerificationMethod, error) {
	options := &ResolutionOpts{}
	for _, opt := range opts {
		opt(options)
	}

	refs := doc.purposeRefs(purpose)
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyForPurpose, purpose)
	}

	var methods []VerificationMethod

	for _, ref := range refs {
		if ref.Embedded != nil {
			methods = append(methods, *ref.Embedded)
			continue
		}

		vm, found := doc.lookupVerificationMethod(ref.ID)
		if !found {
			if options.strictReferences {
				return nil, fmt.Errorf("%w: %s", ErrDanglingReference, ref.ID)
			}

			logger.Warnf("skipping unresolved verification method reference %s in %s", ref.ID, doc.ID)

			continue
		}

		methods = append(methods, vm)
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyForPurpose, purpose)
	}

	return methods, nil
}

// SelectKey selects the verification method to use for a purpose. When the
// document declares several, the first in document order wins; callers
// needing algorithm-specific selection must filter by method type.
func (doc *Doc) SelectKey(purpose Purpose, opts ...ResolutionOpt) (*VerificationMethod, error) {
	methods, err := doc.VerificationMethods(purpose, opts...)
	if err != nil {
		return nil, err
	}

	return &methods[0], nil
}

// ServiceEndpoint scans the document's services for a case-insensitive type
// match and extracts the endpoint URI, whether the endpoint is encoded as a
// bare string or as an object with a uri field.
func (doc *Doc) ServiceEndpoint(serviceType string) (string, error) {
	for i := range doc.Service {
		if !strings.EqualFold(doc.Service[i].Type, serviceType) {
			continue
		}

		raw := doc.Service[i].ServiceEndpoint
		if len(raw) == 0 {
			continue
		}

		if raw[0] == '"' {
			var uri string
			if err := json.Unmarshal(raw, &uri); err != nil {
				return "", fmt.Errorf("parse service endpoint: %w", err)
			}

			return uri, nil
		}

		var obj struct {
			URI string `json:"uri"`
		}

		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("parse service endpoint: %w", err)
		}

		if obj.URI != "" {
			return obj.URI, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrServiceNotFound, serviceType)
}

func (doc *Doc) purposeRefs(purpose Purpose) []VerificationRef {
	switch purpose {
	case Authentication:
		return doc.Authentication
	case AssertionMethod:
		return doc.AssertionMethod
	case KeyAgreement:
		return doc.KeyAgreement
	case CapabilityInvocation:
		return doc.CapabilityInvocation
	case CapabilityDelegation:
		return doc.CapabilityDelegation
	}

	return nil
}

func (doc *Doc) lookupVerificationMethod(id string) (VerificationMethod, bool) {
	for i := range doc.VerificationMethod {
		if doc.VerificationMethod[i].ID == id {
			return doc.VerificationMethod[i], true
		}
	}

	return VerificationMethod{}, false
}
