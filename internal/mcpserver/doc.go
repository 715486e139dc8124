// Package mcpserver exposes the healing engine over the Model Context
// Protocol so AI assistants can classify failures, trigger heals, and
// inspect strategies and statistics through stdio transport.
package mcpserver
