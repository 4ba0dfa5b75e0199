// Package wire serializes environment program images to CBOR.
//
// An image captures the source of every program loaded into an Environment,
// each guarded by a content digest, so a host can persist interpreter state
// across restarts and replay it into a fresh Environment.
package wire

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/cflat/interp"
)

// ImageVersion is the current image format version.
const ImageVersion = 1

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ProgramImage is one retained program: its name, source text and the
// SHA-256 digest of the source.
type ProgramImage struct {
	Name   string
	Source string
	Digest [32]byte
}

// EnvironmentImage is the serialized form of an Environment's program
// registry.
type EnvironmentImage struct {
	Version  uint32
	Programs []ProgramImage
}

// ProgramDigest returns the SHA-256 digest of a program source.
func ProgramDigest(source string) [32]byte {
	return sha256.Sum256([]byte(source))
}

// Snapshot captures the environment's program registry, in load order.
func Snapshot(env *interp.Environment) *EnvironmentImage {
	image := &EnvironmentImage{Version: ImageVersion}
	for _, name := range env.ProgramNames() {
		program := env.GetProgram(name)
		if program == nil {
			continue
		}
		image.Programs = append(image.Programs, ProgramImage{
			Name:   program.Name,
			Source: program.Code,
			Digest: ProgramDigest(program.Code),
		})
	}
	return image
}

// MarshalImage serializes an image to canonical CBOR bytes.
func MarshalImage(image *EnvironmentImage) ([]byte, error) {
	return cborEncMode.Marshal(image)
}

// UnmarshalImage deserializes an image and verifies its version and every
// program digest.
func UnmarshalImage(data []byte) (*EnvironmentImage, error) {
	var image EnvironmentImage
	if err := cbor.Unmarshal(data, &image); err != nil {
		return nil, fmt.Errorf("wire: unmarshal image: %w", err)
	}
	if image.Version != ImageVersion {
		return nil, fmt.Errorf("wire: unsupported image version %d", image.Version)
	}
	for i := range image.Programs {
		program := &image.Programs[i]
		if ProgramDigest(program.Source) != program.Digest {
			return nil, fmt.Errorf("wire: digest mismatch for program %q", program.Name)
		}
	}
	return &image, nil
}

// Restore replays every program of the image into the environment, in
// image order. The first program that fails to load aborts the restore.
func Restore(env *interp.Environment, image *EnvironmentImage) error {
	for _, program := range image.Programs {
		if !env.Load(program.Name, program.Source) {
			return fmt.Errorf("wire: restore %q: %s", program.Name, env.ErrorMessage())
		}
	}
	return nil
}
