// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for keytap.
//
// Configuration is read from a single YAML file named by the --config
// flag or the KEYTAP_CONFIG environment variable. Without either,
// [Default] applies: record into ws-1..ws-9 on the user's tmux server,
// log to keystrokes.log in the temporary directory, no companion.
//
// Unknown keys are rejected so that a misspelled option fails loudly
// instead of silently falling back to its default. ${VAR} and
// ${VAR:-default} references in path fields are expanded after loading.
// Command-line flags are applied by the binary on top of the loaded
// file, then [Config.Validate] reports every problem at once.
package config
