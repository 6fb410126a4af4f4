// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the collections grain configuration.
//
// Configuration is loaded from a single file named by either the
// COLLECTIONS_CONFIG environment variable (via [Load]) or the --config
// flag (via [LoadFile]). Files ending in .json or .jsonc are read as
// JSON with comments; everything else is YAML. Values in the file are
// merged over [Default], which matches the layout the host platform
// gives a grain: package contents under /, writable state under /var.
//
// The file may carry development, staging and production sections
// whose non-empty fields override the base values when
// [Config].Environment matches. Path fields then get ${VAR} and
// ${VAR:-default} expansion, with ${COLLECTIONS_VAR} bound to the
// resolved paths.var directory.
package config
