// Package workspace manages the on-disk layout of a download run.
//
// Each run gets its own session directory named with a fixed prefix plus a
// second-granularity timestamp, containing one numbered item folder per
// downloaded post:
//
//	downloads/
//	└── session_20250114_153042/
//	    ├── item1/
//	    │   ├── video1.mp4
//	    │   ├── thumbnail1.jpg
//	    │   ├── audio1.mp3
//	    │   ├── caption1.txt
//	    │   └── transcript1.txt
//	    └── item2/
//	        └── ...
//
// The artifact filenames are a contract: external tooling may rely on them.
// Session directories are never reused across runs and never cleaned up by
// this package; retention is left to the operator.
//
// Usage:
//
//	manager := workspace.NewManager("./downloads", "session_")
//	dir, err := manager.Create()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	itemDir, err := manager.ItemDir(1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	path := filepath.Join(itemDir, workspace.CaptionName(1))
//	err = workspace.WriteText(path, captionText)
package workspace
