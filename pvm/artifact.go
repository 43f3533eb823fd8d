package pvm

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/rlp"
)

const (
	artifactMagic   = "pvm"
	artifactVersion = 1
)

var (
	ErrNotArtifact       = errors.New("pvm: not a program artifact")
	ErrArtifactVersion   = errors.New("pvm: unsupported artifact version")
	ErrUnknownProgram    = errors.New("pvm: unknown program")
	ErrEmptyArtifactName = errors.New("pvm: artifact has no program name")
)

// Artifact is the deployable form of a native program. It is what a build
// produces and what gets stored as the contract code: it names the registered
// program and carries an opaque payload the program may inspect.
type Artifact struct {
	Magic   string
	Version uint
	Name    string
	Payload []byte
}

// NewArtifact returns the artifact for the named program.
func NewArtifact(name string, payload []byte) *Artifact {
	return &Artifact{
		Magic:   artifactMagic,
		Version: artifactVersion,
		Name:    name,
		Payload: payload,
	}
}

// EncodeArtifact returns the RLP encoding of the artifact.
func EncodeArtifact(a *Artifact) ([]byte, error) {
	if a.Name == "" {
		return nil, ErrEmptyArtifactName
	}
	return rlp.EncodeToBytes(a)
}

// DecodeArtifact parses code produced by EncodeArtifact.
func DecodeArtifact(code []byte) (*Artifact, error) {
	var a Artifact
	if err := rlp.DecodeBytes(code, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArtifact, err)
	}
	if a.Magic != artifactMagic {
		return nil, ErrNotArtifact
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("%w: %d", ErrArtifactVersion, a.Version)
	}
	if a.Name == "" {
		return nil, ErrEmptyArtifactName
	}
	return &a, nil
}

// IsArtifact reports whether code decodes as a program artifact.
func IsArtifact(code []byte) bool {
	_, err := DecodeArtifact(code)
	return err == nil
}

// ReadArtifact reads a prebuilt contract binary from disk and checks that it
// is a well-formed artifact. The raw file content is returned, since that is
// what a deployment submits.
func ReadArtifact(path string) ([]byte, *Artifact, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	a, err := DecodeArtifact(code)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return code, a, nil
}

// WriteArtifact encodes a and writes it to path.
func WriteArtifact(path string, a *Artifact) error {
	code, err := EncodeArtifact(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, code, 0o644)
}

// Resolve looks up the program an artifact names.
func (a *Artifact) Resolve() (Program, error) {
	prog, ok := Lookup(a.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, a.Name)
	}
	return prog, nil
}
