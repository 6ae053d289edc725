// Package config provides configuration structures and utilities for datafetch.
// It defines the lanes of the pipeline (one per content kind), HTTP settings
// for the fetcher, run history settings, and report output preferences.
package config
