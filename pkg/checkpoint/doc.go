// Package checkpoint persists export progress so an interrupted run can resume.
//
// A checkpoint is a small JSON document:
//
//	{
//	  "continuation_token": "AoE/...",
//	  "total_exported": 1000,
//	  "last_export_time": "2024-05-01T10:00:00Z",
//	  "start_time": "2024-05-01T09:00:00Z"
//	}
//
// Saves go to a temporary file that is synced and renamed over the previous
// checkpoint, so a crash leaves either the old or the new document on disk.
package checkpoint
