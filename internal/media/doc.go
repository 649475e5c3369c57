// Package media provides the default pipeline collaborators: a yt-dlp
// downloader, an ffmpeg audio extractor and HTTP clients for transcription
// and summarization endpoints.
package media
