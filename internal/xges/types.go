package xges

import "encoding/xml"

// GES is the root element of an XGES document.
type GES struct {
	XMLName xml.Name `xml:"ges"`
	Version string   `xml:"version,attr"`
	Project Project  `xml:"project"`
}

type Project struct {
	Properties string   `xml:"properties,attr,omitempty"`
	Metadatas  string   `xml:"metadatas,attr,omitempty"`
	Timeline   Timeline `xml:"timeline"`
}

type Timeline struct {
	Properties string  `xml:"properties,attr,omitempty"`
	Metadatas  string  `xml:"metadatas,attr,omitempty"`
	Tracks     []Track `xml:"track"`
	Layers     []Layer `xml:"layer"`
}

// Track is one output track of the timeline: video or audio.
type Track struct {
	Caps       string `xml:"caps,attr"`
	TrackType  int    `xml:"track-type,attr"`
	TrackID    int    `xml:"track-id,attr"`
	Properties string `xml:"properties,attr,omitempty"`
	Metadatas  string `xml:"metadatas,attr,omitempty"`
}

// Layer groups the clips that share a track index.
type Layer struct {
	Priority   int    `xml:"priority,attr"`
	Properties string `xml:"properties,attr,omitempty"`
	Metadatas  string `xml:"metadatas,attr,omitempty"`
	Clips      []Clip `xml:"clip"`
}

type Clip struct {
	ID                 int    `xml:"id,attr"`
	AssetID            string `xml:"asset-id,attr"`
	TypeName           string `xml:"type-name,attr"`
	LayerPriority      int    `xml:"layer-priority,attr"`
	TrackTypes         int    `xml:"track-types,attr"`
	Start              uint64 `xml:"start,attr"`
	Duration           uint64 `xml:"duration,attr"`
	Inpoint            uint64 `xml:"inpoint,attr"`
	Rate               int    `xml:"rate,attr"`
	Properties         string `xml:"properties,attr,omitempty"`
	Metadatas          string `xml:"metadatas,attr,omitempty"`
	ChildrenProperties string `xml:"children-properties,attr,omitempty"`
}

// Clip type names
const (
	ClipTypeURI        = "GESUriClip"
	ClipTypeTransition = "GESTransitionClip"
	ClipTypeTest       = "GESTestClip"
)

// Track types, the same bits as ges.MediaType.
const (
	TrackTypeUnknown = 1 << 0
	TrackTypeAudio   = 1 << 1
	TrackTypeVideo   = 1 << 2
)

// Version is the XGES format version written by Encode.
const Version = "0.3"
