// Package confloader loads configuration from defaults, a YAML file and
// environment variables using koanf, and watches the file for changes.
//
// Priority (highest to lowest):
//
//  1. Environment variables (MINIKV_ prefix)
//  2. Configuration file
//  3. Default values
//
// Environment names map onto known keys, so MINIKV_SERVER_REDIS_READ_BUFFER_SIZE
// sets server.redis.read_buffer_size.
package confloader
