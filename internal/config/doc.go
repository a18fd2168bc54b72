// Package config provides configuration structures and utilities for SiteScan.
// It defines crawl budgets, timeouts, transport settings, report preferences
// and the per-site overrides read from the .sitescan file.
package config
