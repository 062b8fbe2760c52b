// Package command defines the canonical command envelope and contract used
// across the write path.
//
// Commands express business intent from API callers and collaborating
// services. They are the stable boundary before domain deciders so that
// business rules are evaluated only against normalized inputs.
package command
