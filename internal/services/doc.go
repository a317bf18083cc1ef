// Package services defines the shared error taxonomy for external
// collaborators and hosts the client packages that talk to them: the ffmpeg
// transcoder, the S3 object store, the media API, and the subtitle search
// service.
package services
