// Package project persists timelines in a SQLite project file.
//
// A project holds the media types of its timeline and one row per member
// object in the flat record form produced by ges.Object.Serialize. Loading
// a project re-resolves asset-backed objects, so a file can be opened on a
// machine where some media is missing. Every open Store holds an exclusive
// advisory lock on "<path>.lock" until Close.
package project
