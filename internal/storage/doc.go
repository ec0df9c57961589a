/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage persists boards on disk: a human-readable board.json
// manifest with timestamped backups and atomic replacement, plus a per-board
// embedded SQLite index (.mcv/index.sqlite) carrying the item rows, an FTS5
// keyword index, autosave snapshots, and storage-usage accounting. The index
// is derived data and can always be rebuilt from the manifest.
package storage
