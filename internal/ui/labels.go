// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ui renders search results, the research trace and the synthesis.
// Pure transforms (labels, cards, modal fields, the markdown subset) are
// separate from the surfaces that display them (Page, Terminal).
package ui

import (
	"fmt"

	"github.com/pdiddy/mosaic/pkg/types"
)

// Similarity thresholds for the qualitative relevance labels, highest first.
const (
	ThresholdTopMatch       = 0.70
	ThresholdHighlyRelevant = 0.55
	ThresholdRelevant       = 0.45
)

// Relevance labels in descending order.
const (
	LabelTopMatch       = "Top Match"
	LabelHighlyRelevant = "Highly Relevant"
	LabelRelevant       = "Relevant"
	LabelPotentialLink  = "Potential Link"
)

// Tier labels. LLM tier applies when the backend sent an explanation.
const (
	TierLLM         = "LLM Tier 2"
	TierRegex       = "Regex Tier 1"
	TierLLMDetail   = "LLM Tier 2 (Optimized)"
	TierRegexDetail = "Regex Tier 1 (Baseline)"
)

// RelevanceLabel buckets a similarity score into a qualitative label.
func RelevanceLabel(similarity float64) string {
	switch {
	case similarity >= ThresholdTopMatch:
		return LabelTopMatch
	case similarity >= ThresholdHighlyRelevant:
		return LabelHighlyRelevant
	case similarity >= ThresholdRelevant:
		return LabelRelevant
	default:
		return LabelPotentialLink
	}
}

// TierLabel returns the short verification tier for a card.
func TierLabel(r types.Result) string {
	if r.HasExplanation() {
		return TierLLM
	}
	return TierRegex
}

// TierDetail returns the long verification tier for the modal.
func TierDetail(r types.Result) string {
	if r.HasExplanation() {
		return TierLLMDetail
	}
	return TierRegexDetail
}

// Percent formats a similarity in [0,1] as a one-decimal percentage without
// the sign, e.g. 0.7134 → "71.3".
func Percent(similarity float64) string {
	return fmt.Sprintf("%.1f", similarity*100)
}
