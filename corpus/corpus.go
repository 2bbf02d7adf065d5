// Package corpus finds audio files on disk, pairs them with clean
// references and decodes them into comparator items.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/RyanBlaney/sonido-denoise/audio"
	"github.com/RyanBlaney/sonido-denoise/experiment"
	"github.com/RyanBlaney/sonido-denoise/logging"
	"github.com/RyanBlaney/sonido-denoise/transcode"
)

// ErrEmptyCorpus is returned when a directory holds no usable audio files
var ErrEmptyCorpus = errors.New("no audio files found")

// Entry is one input file and its optional clean reference
type Entry struct {
	ID            string `json:"id"`
	InputPath     string `json:"input_path"`
	ReferencePath string `json:"reference_path,omitempty"`
}

// Stem returns the file name without its extension
func (e Entry) Stem() string {
	return strings.TrimSuffix(e.ID, filepath.Ext(e.ID))
}

// Decoder turns a file into a mono signal
type Decoder interface {
	DecodeFile(ctx context.Context, filename string) (*audio.Signal, error)
}

// Discover lists supported audio files in inputDir sorted by name. When
// referenceDir is set, each entry is paired with the reference file whose
// base name matches.
func Discover(inputDir, referenceDir string) ([]Entry, error) {
	inputs, err := audioFiles(inputDir)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%s: %w", inputDir, ErrEmptyCorpus)
	}

	references := map[string]string{}
	if referenceDir != "" {
		refs, err := audioFiles(referenceDir)
		if err != nil {
			return nil, err
		}
		for _, name := range refs {
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			if _, exists := references[stem]; !exists {
				references[stem] = filepath.Join(referenceDir, name)
			}
		}
	}

	entries := make([]Entry, 0, len(inputs))
	for _, name := range inputs {
		entry := Entry{
			ID:        name,
			InputPath: filepath.Join(inputDir, name),
		}
		entry.ReferencePath = references[entry.Stem()]
		entries = append(entries, entry)
	}
	return entries, nil
}

func audioFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	supported := transcode.SupportedExtensions()
	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if slices.Contains(supported, ext) {
			names = append(names, de.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Load decodes every entry into an item. Inputs that fail to decode are
// skipped with a warning; a reference that fails to decode leaves the item
// without one. Noise, when non-nil, is attached to every item.
func Load(ctx context.Context, decoder Decoder, entries []Entry, noise *audio.Signal) ([]experiment.Item, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "corpus_loader",
	})

	items := make([]experiment.Item, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		input, err := decoder.DecodeFile(ctx, entry.InputPath)
		if err != nil {
			logger.Warn("Skipping undecodable input", logging.Fields{
				"file":  entry.InputPath,
				"error": err.Error(),
			})
			continue
		}

		item := experiment.Item{ID: entry.ID, Input: input, Noise: noise}
		if entry.ReferencePath != "" {
			reference, err := decoder.DecodeFile(ctx, entry.ReferencePath)
			if err != nil {
				logger.Warn("Ignoring undecodable reference", logging.Fields{
					"file":  entry.ReferencePath,
					"error": err.Error(),
				})
			} else {
				item.Reference = reference
			}
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("none of %d files decoded: %w", len(entries), ErrEmptyCorpus)
	}

	logger.Info("Corpus loaded", logging.Fields{
		"files":   len(items),
		"skipped": len(entries) - len(items),
	})
	return items, nil
}
