// Package preflight runs environment checks before a tick and for the status
// command: storage and state directory access, free space on the storage
// filesystem, and reachability of the shared link.
package preflight
