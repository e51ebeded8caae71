package config

import "os"

func envLookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	return v, ok
}
