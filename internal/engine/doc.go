// Package engine drives a grouping run end to end: discover image files,
// extract capture metadata, resolve a place label per image, partition the
// set into sessions, and relocate each kept session into its named folder.
// The run loop is cooperatively interruptible between images and between
// groups, and every per-image or per-group failure is isolated so a run
// always finishes with an honest summary.
package engine
