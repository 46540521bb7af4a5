package pkg

import "fmt"

var (
	// These variables are here only to show current version. They are set in makefile during build process
	ShrdVersion         = "devel"
	GitRevision         = "devel"
	ShrdVersionRevision = fmt.Sprintf("%s-%s", ShrdVersion, GitRevision)
)
