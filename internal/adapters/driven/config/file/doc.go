// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.complyqa.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable prompt templates with embedded defaults
//   - PromptWatcher: fsnotify-driven prompt reloads for long-running servers
package file
