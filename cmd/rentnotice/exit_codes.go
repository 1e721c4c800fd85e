package main

import (
	"errors"
	"os"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/assets"
	"github.com/alnah/go-rentnotice/internal/config"
	"github.com/alnah/go-rentnotice/internal/events"
)

// Exit codes for the rentnotice CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Command completed
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or request fields
	ExitIO      = 3 // Missing or unreadable input, unwritable output
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4). Checked first: conversion errors wrap them.
	if errors.Is(err, rentnotice.ErrBrowserConnect) ||
		errors.Is(err, rentnotice.ErrPageCreate) ||
		errors.Is(err, rentnotice.ErrPageLoad) ||
		errors.Is(err, rentnotice.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, rentnotice.ErrSourceNotFound) ||
		errors.Is(err, rentnotice.ErrUnreadablePDF) ||
		errors.Is(err, rentnotice.ErrEmptyDocument) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, rentnotice.ErrValidation) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrTemplateNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, events.ErrUnknownDriver) {
		return ExitUsage
	}

	return ExitGeneral
}
