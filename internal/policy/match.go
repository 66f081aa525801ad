package policy

import (
	"path/filepath"
	"strings"
)

// Tier is the classification of a language within a policy.
type Tier string

const (
	TierPreferred    Tier = "tier1"
	TierTolerated    Tier = "tier2"
	TierForbidden    Tier = "forbidden"
	TierUnclassified Tier = "unclassified"
)

// MatchesContent reports whether any marker occurs in content, ignoring case.
func (r LanguageRule) MatchesContent(content string) bool {
	return containsAny(strings.ToLower(content), r.Markers)
}

// MatchesPath reports whether path ends with one of the rule's extensions,
// ignoring case.
func (r LanguageRule) MatchesPath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range r.Extensions {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// ToolPresent reports whether the tool is in use in content or file names.
func (r ToolchainRule) ToolPresent(content string, files []string) bool {
	return markersPresent(content, files, r.ToolMarkers)
}

// RequirementPresent reports whether the companion requirement is in use.
func (r ToolchainRule) RequirementPresent(content string, files []string) bool {
	return markersPresent(content, files, r.RequiresMarkers)
}

// AppliesTo returns the first file the rule applies to and whether the rule
// applies at all. A rule with no file types or "*" applies to everything,
// and every rule applies to a proposal without affected files.
func (r PatternRule) AppliesTo(files []string) (string, bool) {
	if len(files) == 0 {
		return "", true
	}
	if r.matchesAllTypes() {
		return files[0], true
	}
	for _, f := range files {
		for _, ft := range r.FileTypes {
			if fileTypeMatches(ft, f) {
				return f, true
			}
		}
	}
	return "", false
}

func (r PatternRule) matchesAllTypes() bool {
	if len(r.FileTypes) == 0 {
		return true
	}
	for _, ft := range r.FileTypes {
		if ft == "*" {
			return true
		}
	}
	return false
}

// fileTypeMatches accepts "*.rs", ".rs" and "rs" forms.
func fileTypeMatches(fileType, path string) bool {
	ext := strings.TrimPrefix(fileType, "*")
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.EqualFold(filepath.Ext(path), ext)
}

// IsExcepted reports whether language is excused for any of the given files.
func (p *Policy) IsExcepted(language string, files ...string) bool {
	for _, exc := range p.Languages.Exceptions {
		if !strings.EqualFold(exc.Language, language) {
			continue
		}
		for _, f := range files {
			for _, allowed := range exc.AllowedPaths {
				if allowed != "" && strings.Contains(f, allowed) {
					return true
				}
			}
		}
	}
	return false
}

// ClassifyPath returns the tier and language name a path belongs to by
// extension. Forbidden takes precedence over tier2, tier2 over tier1.
func (p *Policy) ClassifyPath(path string) (Tier, string) {
	for _, r := range p.Languages.Forbidden {
		if r.MatchesPath(path) {
			return TierForbidden, r.Name
		}
	}
	for _, r := range p.Languages.Tier2 {
		if r.MatchesPath(path) {
			return TierTolerated, r.Name
		}
	}
	for _, r := range p.Languages.Tier1 {
		if r.MatchesPath(path) {
			return TierPreferred, r.Name
		}
	}
	return TierUnclassified, ""
}

func markersPresent(content string, files []string, markers []string) bool {
	if containsAny(strings.ToLower(content), markers) {
		return true
	}
	for _, f := range files {
		if containsAny(strings.ToLower(f), markers) {
			return true
		}
	}
	return false
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
