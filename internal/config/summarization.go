// Summarization configuration re-exports.
//
// DESIGN: Pipeline config is defined in internal/summarization/config.go.
// This file re-exports those types for use by the main Config struct.
package config

import "github.com/washu-tag/context-gateway/internal/summarization"

// =============================================================================
// RE-EXPORTS FROM summarization PACKAGE
// =============================================================================

// SummarizationConfig is an alias for summarization.Config for use in main Config struct.
type SummarizationConfig = summarization.Config

// SummarizerConfig is an alias for summarization.SummarizerConfig.
type SummarizerConfig = summarization.SummarizerConfig
