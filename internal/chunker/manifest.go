package chunker

import (
	"fmt"
	"os"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/models"
)

// ManifestName is the file that records a completed split inside the work dir.
const ManifestName = "chunks.json"

// Manifest is the durable output of the chunk stage.
type Manifest struct {
	Source   string              `json:"source"`
	MaxBytes int64               `json:"max_bytes"`
	Chunks   []models.AudioChunk `json:"chunks"`
}

// WriteManifest atomically stores m at path.
func WriteManifest(path string, m Manifest) error {
	if m.Chunks == nil {
		m.Chunks = []models.AudioChunk{}
	}
	return atomicfile.WriteJSON(path, m)
}

// ReadManifest loads the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	if err := atomicfile.ReadJSON(path, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Verify checks that every chunk file listed in m is present.
func (m Manifest) Verify() error {
	for _, ch := range m.Chunks {
		if _, err := os.Stat(ch.Path); err != nil {
			return fmt.Errorf("chunk %d missing: %w", ch.Index, err)
		}
	}
	return nil
}

// Remove deletes the chunk files listed in m. Missing files are ignored.
func (m Manifest) Remove() {
	for _, ch := range m.Chunks {
		_ = os.Remove(ch.Path)
	}
}
