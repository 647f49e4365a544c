// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

// Package tags provides tag normalization and blocklist filtering.
//
// Tags are free-text descriptors (genre, mood, era) attached to tracks and
// artists by upstream catalogs. They arrive noisy: mixed case, duplicates,
// and a long tail of crowd-noise labels ("awesome", "seen live", artist
// names) that carry no semantic signal. Every tag list entering the
// recommendation pipeline passes through Normalize and Filter first.
package tags

import "strings"

// Normalize lowercases and trims a tag list, dropping empties and
// duplicates while preserving first-occurrence order.
func Normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitList parses a comma-separated tag string into a normalized tag list.
// Used for catalog rows that store tags as a single column.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	return Normalize(strings.Split(s, ","))
}

// Filter removes blocklisted tags, preserving order. Input is expected to
// be normalized; membership is checked case-insensitively anyway so callers
// that skip Normalize still get correct filtering.
func Filter(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if _, blocked := blocklist[strings.ToLower(t)]; blocked {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Union merges multiple tag lists into one deduplicated, case-insensitive
// union, preserving the order tags were first seen.
func Union(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, t := range list {
			key := strings.ToLower(t)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Contains reports whether the list contains the tag, case-insensitively.
func Contains(list []string, tag string) bool {
	tag = strings.ToLower(tag)
	for _, t := range list {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// Cap returns at most n tags from the front of the list. A non-positive n
// returns the list unchanged.
func Cap(list []string, n int) []string {
	if n <= 0 || len(list) <= n {
		return list
	}
	return list[:n]
}

// blocklist contains crowd-noise tags that upstream catalogs attach to
// popular tracks. They describe the crowd, not the music, and poison both
// the Jaccard overlap and the embedding average if left in.
var blocklist = map[string]struct{}{
	"artist_name": {}, "spotify": {}, "tags": {}, "similar": {}, "america": {},
	"usa": {}, "seen live": {}, "uk": {}, "myspotigrambot": {}, "taylor": {},
	"taylor swift": {}, "overrated": {}, "gay": {}, "amazing": {}, "queer": {},
	"genius": {}, "brilliant": {}, "love at first listen": {},
	"masterpiece": {}, "personal favourites": {}, "bop": {}, "bisexual": {},
	"pansexual": {}, "lana del rey": {}, "lana": {}, "charli xcx": {},
	"brat": {}, "charli": {}, "queen of pop": {}, "king of pop": {},
	"soty": {}, "michael jackson": {}, "lady gaga": {}, "madonna": {},
	"beyonce": {}, "beautiful": {}, "mother": {}, "bts": {}, "blackpink": {},
	"awesome": {}, "bst": {}, "favorite": {}, "2016": {}, "korean": {},
	"i love": {}, "i like this": {}, "queen": {}, "top songs": {}, "slay": {},
	"diva": {}, "female vocalist": {}, "confidence": {}, "fav": {},
	"forever": {}, "iconic": {}, "love": {}, "bot": {}, "bots": {},
	"trash": {}, "ass": {}, "flops": {}, "flop": {}, "awful": {},
	"amor a primeira ouvida": {}, "cunt": {}, "atlas speaks": {}, "nice": {},
	"banger": {}, "highschool": {}, "colors": {}, "homewrecker": {},
	"aoty": {}, "best of 2024": {}, "2024": {}, "ariana grande": {},
	"this song is for biel": {}, "cheater": {}, "max martin": {}, "mgmt": {},
	"featuring": {}, "2020": {}, "so good": {}, "shit": {}, "2018": {},
	"if this were a pokemon i would catch it": {}, "fire": {},
	"-1001747063611": {}, "my spotify": {}, "sad": {}, "incredible": {},
	"flawless": {}, "cried to": {}, "sad asf": {}, "heartbreakint": {},
	"cried to a lot": {}, "cried completely shitfaced to": {},
	"so delicate and devastating": {}, "always makes me tear up": {},
	"shes mother": {}, "olivia": {}, "test": {}, "jimin": {}, "bangtan": {},
	"paved the way": {}, "songs i relate to": {}, "swedish": {},
	"best song titles": {}, "radiohead": {}, "nicki minaj": {}, "drake": {},
	"best": {}, "minhas musicas": {},
}
