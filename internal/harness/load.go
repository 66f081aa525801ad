package harness

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/conative/internal/contract"
)

// Skipped is a file under a corpus directory that could not be loaded.
type Skipped struct {
	Path string
	Err  error
}

// Corpus is the set of cases found under a path.
type Corpus struct {
	Root    string
	Cases   []Case
	Skipped []Skipped
}

// Load reads one training file, or every .json/.yaml/.yml file below a
// directory. Case names are paths relative to the directory without the
// extension. Unparseable files inside a directory are recorded in
// Skipped; a single unparseable file is an error.
func Load(path string) (*Corpus, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}

	corpus := &Corpus{Root: path}

	if !info.IsDir() {
		c, err := LoadFile(path, caseName(filepath.Base(path)))
		if err != nil {
			return nil, err
		}
		corpus.Cases = append(corpus.Cases, *c)
		return corpus, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isCaseFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	sort.Strings(files)

	for _, f := range files {
		rel, err := filepath.Rel(path, f)
		if err != nil {
			rel = filepath.Base(f)
		}
		c, err := LoadFile(f, caseName(rel))
		if err != nil {
			corpus.Skipped = append(corpus.Skipped, Skipped{Path: f, Err: err})
			continue
		}
		corpus.Cases = append(corpus.Cases, *c)
	}
	return corpus, nil
}

// LoadFile parses one training file into a case named name.
func LoadFile(path, name string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var f TrainingFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewCase(name, &f)
}

// NewCase validates a training file and turns it into a case.
func NewCase(name string, f *TrainingFile) (*Case, error) {
	if f.Proposal == nil {
		return nil, fmt.Errorf("%s: missing proposal", name)
	}
	verdict, err := contract.ParseVerdict(f.ExpectedVerdict)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if f.Proposal.ID == "" {
		f.Proposal.ID = uuid.New().String()
	}
	return &Case{
		Name:             name,
		Description:      f.Reasoning,
		Proposal:         f.Proposal,
		ExpectedVerdict:  verdict,
		ExpectedCategory: ExpectedCategoryFor(f, verdict),
		RedteamCategory:  f.RedteamCategory,
		AttackVector:     f.AttackVector,
		KnownLimitation:  f.KnownLimitation,
	}, nil
}

func isCaseFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func caseName(rel string) string {
	return filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
}
