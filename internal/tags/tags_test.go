// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package tags

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"lowercases and trims", []string{"  Shoegaze ", "DREAM POP"}, []string{"shoegaze", "dream pop"}},
		{"drops duplicates keeping first", []string{"indie", "Indie", "rock", "indie"}, []string{"indie", "rock"}},
		{"drops empties", []string{"", "  ", "ambient"}, []string{"ambient"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList("Shoegaze, dream pop,,  Noise ")
	want := []string{"shoegaze", "dream pop", "noise"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList() = %v, want %v", got, want)
	}

	if got := SplitList(""); got != nil {
		t.Errorf("SplitList(\"\") = %v, want nil", got)
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"removes blocklisted", []string{"shoegaze", "seen live", "noise"}, []string{"shoegaze", "noise"}},
		{"case-insensitive blocklist", []string{"Seen Live", "dreampop"}, []string{"dreampop"}},
		{"all blocked", []string{"awesome", "banger"}, []string{}},
		{"none blocked", []string{"post-rock"}, []string{"post-rock"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	got := Union([]string{"shoegaze", "noise"}, []string{"Noise", "dreampop"}, []string{"shoegaze"})
	want := []string{"shoegaze", "noise", "dreampop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Union() = %v, want %v", got, want)
	}
}

func TestContains(t *testing.T) {
	list := []string{"shoegaze", "Dream Pop"}
	if !Contains(list, "dream pop") {
		t.Error("Contains() should match case-insensitively")
	}
	if Contains(list, "noise") {
		t.Error("Contains() matched absent tag")
	}
}

func TestCap(t *testing.T) {
	list := []string{"a", "b", "c"}
	if got := Cap(list, 2); len(got) != 2 {
		t.Errorf("Cap(3 tags, 2) returned %d tags", len(got))
	}
	if got := Cap(list, 0); len(got) != 3 {
		t.Errorf("Cap(list, 0) should return list unchanged, got %d tags", len(got))
	}
	if got := Cap(list, 10); len(got) != 3 {
		t.Errorf("Cap(list, 10) should return list unchanged, got %d tags", len(got))
	}
}
