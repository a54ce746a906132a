// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bridges the build system and the runtime lookup logic. The two
deprecation tables are baked into the binary with the Go embed package, so
the knowledge the resolver ships with is immutable at runtime and travels
with the executable.
*/

package knowledge

import (
	_ "embed"
)

// deprecatedPackagesYAML holds the raw byte content of deprecated_packages.yaml.
//
//go:embed deprecated_packages.yaml
var deprecatedPackagesYAML []byte

// builtinModulesYAML holds the raw byte content of builtin_modules.yaml.
//
//go:embed builtin_modules.yaml
var builtinModulesYAML []byte
