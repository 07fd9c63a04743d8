// Package codec translates agronomic records to and from the numeric space of
// the regression model.
package codec

import (
	"fmt"
	"sort"

	"github.com/khulafarming/yieldcast/internal/common"
)

// UnknownCategoryError is returned when a label was not seen during training.
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s category %q", e.Column, e.Value)
}

func (e *UnknownCategoryError) Unwrap() error {
	return common.ErrUnknownCategory
}

// LabelEncoder maps category labels to integer codes. Classes are sorted so
// the mapping only depends on the set of labels seen during fitting.
type LabelEncoder struct {
	Column  string   `json:"column"`
	Classes []string `json:"classes"`
}

// FitLabelEncoder builds an encoder from the observed labels of a column.
func FitLabelEncoder(column string, labels []string) (*LabelEncoder, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("cannot fit %s encoder: no labels", column)
	}

	seen := make(map[string]struct{}, 4)
	for _, l := range labels {
		seen[l] = struct{}{}
	}

	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	return &LabelEncoder{Column: column, Classes: classes}, nil
}

// Transform returns the code for a label.
func (e *LabelEncoder) Transform(label string) (int, error) {
	code := sort.SearchStrings(e.Classes, label)
	if code >= len(e.Classes) || e.Classes[code] != label {
		return 0, &UnknownCategoryError{Column: e.Column, Value: label}
	}
	return code, nil
}

// Inverse returns the label for a code.
func (e *LabelEncoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("%s code %d out of range [0, %d)", e.Column, code, len(e.Classes))
	}
	return e.Classes[code], nil
}

func (e *LabelEncoder) validate() error {
	if e.Column == "" {
		return fmt.Errorf("label encoder has no column")
	}
	if len(e.Classes) == 0 {
		return fmt.Errorf("%s encoder has no classes", e.Column)
	}
	for i := 1; i < len(e.Classes); i++ {
		if e.Classes[i-1] >= e.Classes[i] {
			return fmt.Errorf("%s encoder classes must be sorted and unique", e.Column)
		}
	}
	return nil
}
