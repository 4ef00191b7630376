package testpkg

import "github.com/gwillem/filecache"

// NewWithPackageName calls New with UsePackagePath from this package
func NewWithPackageName() (*filecache.Cache, error) {
	return filecache.New(filecache.UsePackagePath)
}

// NewDefault calls New without UsePackagePath
func NewDefault() (*filecache.Cache, error) {
	return filecache.New()
}
