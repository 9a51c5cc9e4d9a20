package main

import "github.com/spf13/pflag"

// Flags are registered by this package, so lookups only fail on a typo.

func mustString(fs *pflag.FlagSet, name string) string {
	v, err := fs.GetString(name)
	if err != nil {
		panic(err)
	}
	return v
}

func mustBool(fs *pflag.FlagSet, name string) bool {
	v, err := fs.GetBool(name)
	if err != nil {
		panic(err)
	}
	return v
}

func mustInt(fs *pflag.FlagSet, name string) int {
	v, err := fs.GetInt(name)
	if err != nil {
		panic(err)
	}
	return v
}
