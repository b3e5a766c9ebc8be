// SPDX-License-Identifier: MPL-2.0

// Package config handles opexprep configuration using Viper with CUE as the
// file format.
//
// Configuration is read from the file given with --config, otherwise from
// config.cue in the user configuration directory ($XDG_CONFIG_HOME/opexprep,
// ~/Library/Application Support/opexprep or %APPDATA%\opexprep), otherwise
// from config.cue in the working directory. Every file is validated against
// the embedded config_schema.cue. Scalar settings can be overridden with
// OPEXPREP_* environment variables, e.g. OPEXPREP_UPLOAD_BUCKET.
package config
