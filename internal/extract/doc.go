// Package extract turns free-form user input into submittable
// (label, URL) pairs, expanding playlist URLs into their videos.
package extract
