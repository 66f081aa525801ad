package oracle

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/conative/internal/policy"
)

// SkipDirs are dependency and build directories never descended into.
var SkipDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"_build":       true,
}

// ScanOptions tunes directory traversal.
type ScanOptions struct {
	IncludeHidden bool
	// MaxDepth limits descent below the root. Zero means unlimited.
	MaxDepth int
	// Include and Exclude are filepath.Match globs tested against base names.
	Include []string
	Exclude []string
}

// ScanResult aggregates per-file findings for a directory tree.
type ScanResult struct {
	Root         string              `json:"root"`
	Verdict      PolicyVerdict       `json:"verdict"`
	FilesScanned int                 `json:"files_scanned"`
	Tiers        map[policy.Tier]int `json:"tiers"`
	Violations   []Violation         `json:"violations"`
	Concerns     []Concern           `json:"concerns"`
}

// ScanDirectory checks every file under root by extension against the
// forbidden and tier2 languages. Traversal errors are returned as-is.
func (o *Oracle) ScanDirectory(root string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	res := &ScanResult{Root: root, Tiers: make(map[policy.Tier]int)}
	if !info.IsDir() {
		o.scanFile(res, filepath.ToSlash(root))
		res.Verdict = selectVerdict(res.Violations, res.Concerns)
		return res, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if (!opts.IncludeHidden && strings.HasPrefix(name, ".")) || SkipDirs[name] {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 && depth(root, path) >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		if !opts.selects(name) {
			return nil
		}
		o.scanFile(res, filepath.ToSlash(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	res.Verdict = selectVerdict(res.Violations, res.Concerns)
	return res, nil
}

func (o *Oracle) scanFile(res *ScanResult, path string) {
	res.FilesScanned++
	tier, _ := o.policy.ClassifyPath(path)
	res.Tiers[tier]++

	for _, lang := range o.forbidden {
		if !lang.rule.MatchesPath(path) || o.policy.IsExcepted(lang.rule.Name, path) {
			continue
		}
		res.Violations = append(res.Violations, Violation{
			Rule: RuleForbiddenFile + ":" + lang.rule.Name,
			Kind: ForbiddenLanguage{
				Language: lang.rule.Name,
				File:     path,
				Context:  "File extension",
			},
			Severity: SeverityCritical,
		})
	}

	for _, lang := range o.tier2 {
		if lang.rule.MatchesPath(path) {
			res.Concerns = append(res.Concerns, tier2Concern(RuleTier2Language+":"+lang.rule.Name, lang.rule.Name, path))
		}
	}
}

func (opts ScanOptions) selects(name string) bool {
	for _, pat := range opts.Exclude {
		if ok, _ := filepath.Match(pat, name); ok {
			return false
		}
	}
	if len(opts.Include) == 0 {
		return true
	}
	for _, pat := range opts.Include {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// depth returns the number of path elements between root and path.
func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
