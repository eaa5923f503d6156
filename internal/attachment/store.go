package attachment

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// allowedExtensions are the accepted photo formats.
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

const tempPrefix = ".upload-"

// embedQuality is the JPEG quality of images prepared for PDF embedding.
const embedQuality = 90

// IsAllowed reports whether the filename has one of the accepted image extensions.
func IsAllowed(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[i+1:])]
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// asciiOnly decomposes characters and drops everything outside ASCII, so "ø" is lost and "ü" becomes "u".
var asciiOnly = transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
})))

// SecureFilename returns a version of name that is safe to use as a file in the attachment directory.
// Path components are flattened, whitespace becomes underscores and anything outside [A-Za-z0-9_.-] is removed.
// The result may be empty.
func SecureFilename(name string) string {
	ascii, _, err := transform.String(asciiOnly, name)
	if err != nil {
		return ""
	}

	ascii = strings.NewReplacer("/", " ", "\\", " ").Replace(ascii)
	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeChars.ReplaceAllString(ascii, "")
	return strings.Trim(ascii, "._")
}

// Store keeps uploaded photos in a directory, keyed by sanitized filename.
type Store struct {
	dir string
}

// New creates a store for the given directory. The directory is created on first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the attachment directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of a stored attachment.
// It fails for names that are not plain file names.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid attachment name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Save writes the upload under its sanitized name and returns that name.
// Disallowed or unusable filenames are skipped and yield an empty name without error.
// An existing file with the same name is replaced.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	if filename == "" || !IsAllowed(filename) {
		if filename != "" {
			log.Warn("skipping attachment with disallowed extension", "filename", filename)
		}
		return "", nil
	}

	name := SecureFilename(filename)
	if name == "" || !IsAllowed(name) {
		log.Warn("skipping attachment with unusable filename", "filename", filename)
		return "", nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("failed to move attachment into place: %w", err)
	}

	log.Debug("saved attachment", "filename", filename, "stored", name)
	return name, nil
}

// PrepareForEmbedding loads a stored photo and re-encodes it as an opaque RGB JPEG.
// Transparent pixels are flattened onto white. It returns nil if the file is missing
// or cannot be decoded.
func (s *Store) PrepareForEmbedding(name string) []byte {
	if name == "" {
		return nil
	}

	path, err := s.Path(name)
	if err != nil {
		log.Warn("refusing to load attachment", "name", name, "error", err)
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		log.Warn("attachment not found", "name", name, "error", err)
		return nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		log.Error("failed to decode attachment", "name", name, "error", err)
		return nil
	}

	data, err := flattenToJPEG(img)
	if err != nil {
		log.Error("failed to convert attachment", "name", name, "error", err)
		return nil
	}
	return data
}

func flattenToJPEG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	flat := imaging.Overlay(background, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(embedQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// List returns the names of all stored attachments.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Size returns the total size in bytes of all stored attachments.
func (s *Store) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
