// Package fs is the file system seam used by the store and the local blob store.
//
// [File] exposes the descriptor and Truncate because a store extends its
// backing file before mapping the new pages. [FileSystem] covers the few
// path operations the module needs: open, stat, remove, rename, mkdir and
// directory listing.
//
// [LocalFS] forwards to package os and is the [Default]. [FaultyFS] wraps
// another FileSystem and fails selected calls on files whose name contains a
// pattern:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("store.log", fs.Fault{FailOnTruncate: true, Err: syscall.ENOSPC})
//
// Calls are not cancellable. Remote storage with context support lives in
// package blobstore.
package fs
