// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for bullpen using Mage.
//
// Usage:
//
//	mage build          Compile bullpen binary to bin/
//	mage run            Build, sync all datasets and show today's picks
//	mage test:all       Run all tests with the race detector
//	mage test:unit      Run library package tests, skipping the CLI
//	mage test:cover     Write a coverage profile to bin/
//	mage vet            Run go vet
//	mage lint           Run go vet and golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install bullpen to GOPATH/bin
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "bullpen"
	binaryDir  = "bin"
	cmdDir     = "./cmd/bullpen"
	modulePath = "github.com/mesh-intelligence/bullpen"
)

// Build compiles the bullpen binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-trimpath", "-o", binaryPath(), cmdDir)
}

// Run builds bullpen and runs a full sync followed by today's best picks.
// Extra arguments come from BULLPEN_ARGS, split on spaces.
func Run() error {
	mg.Deps(Build)
	args := []string{"run"}
	if extra := strings.Fields(os.Getenv("BULLPEN_ARGS")); len(extra) > 0 {
		args = append(args, extra...)
	}
	return sh.RunV(binaryPath(), args...)
}

func binaryPath() string {
	return filepath.Join(binaryDir, binaryName)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath())
}
