// SPDX-License-Identifier: GPL-3.0-or-later
package migrations

import "embed"

// FS holds one directory of migrations per sql dialect.
//
//go:embed sqlite3/*.sql postgres/*.sql
var FS embed.FS
