/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package search

import (
	"strings"
	"time"

	"mediacanvas/internal/domain"
)

// Filters are the structured constraints extracted from a raw query string:
//
//	before:YYYY-MM-DD   items created strictly before the date
//	after:YYYY-MM-DD    items created strictly after the date
//	is:image, is:video  type category
//	is:gif              shorthand for image/gif
//	is:image/png        exact MIME type
//	is:png              shorthand for image/png
//
// Tokens that fail to parse (bad date) are kept as ordinary query words.
type Filters struct {
	Before    time.Time
	After     time.Time
	HasBefore bool
	HasAfter  bool
	// MimeTypes holds category names ("image", "video") or full MIME types.
	// A non-empty list matches when any entry matches.
	MimeTypes []string
}

const dateLayout = "2006-01-02"

// ParseQuery splits a raw query into filter tokens and the remaining text.
// Filter prefixes are case-insensitive; the residual text keeps its casing
// (matching lowercases later).
func ParseQuery(raw string) (text string, f Filters) {
	var rest []string
	for _, word := range strings.Fields(raw) {
		lower := strings.ToLower(word)
		switch {
		case strings.HasPrefix(lower, "before:"):
			if t, err := time.Parse(dateLayout, lower[len("before:"):]); err == nil {
				f.Before, f.HasBefore = t, true
				continue
			}
		case strings.HasPrefix(lower, "after:"):
			if t, err := time.Parse(dateLayout, lower[len("after:"):]); err == nil {
				f.After, f.HasAfter = t, true
				continue
			}
		case strings.HasPrefix(lower, "is:") && len(lower) > len("is:"):
			f.MimeTypes = append(f.MimeTypes, canonicalType(lower[len("is:"):]))
			continue
		}
		rest = append(rest, word)
	}
	return strings.Join(rest, " "), f
}

func canonicalType(v string) string {
	switch {
	case v == "image" || v == "video":
		return v
	case v == "gif":
		return "image/gif"
	case strings.Contains(v, "/"):
		return v
	default:
		// bare subtype is shorthand for an image format
		return "image/" + v
	}
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return !f.HasBefore && !f.HasAfter && len(f.MimeTypes) == 0
}

// Match reports whether the item satisfies every set filter.
func (f Filters) Match(it *domain.MediaItem) bool {
	if f.HasBefore && !it.CreatedAt.Before(f.Before) {
		return false
	}
	if f.HasAfter && !it.CreatedAt.After(f.After) {
		return false
	}
	if len(f.MimeTypes) == 0 {
		return true
	}
	for _, want := range f.MimeTypes {
		if matchType(it, want) {
			return true
		}
	}
	return false
}

func matchType(it *domain.MediaItem, want string) bool {
	ft := strings.ToLower(it.FileType)
	if want == "image" || want == "video" {
		return ft == want || strings.HasPrefix(ft, want+"/")
	}
	if ft == want {
		return true
	}
	// Fall back on the file extension for stores that only keep a category.
	if i := strings.LastIndex(want, "/"); i >= 0 && it.FilePath != "" {
		ext := strings.ToLower(it.FilePath)
		if j := strings.LastIndex(ext, "."); j >= 0 {
			return ext[j+1:] == want[i+1:]
		}
	}
	return false
}
