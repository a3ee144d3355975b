package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configHeader = `# h5s3 configuration file
#
# Every key can be overridden from the environment with the H5S3_ prefix,
# for example H5S3_DRIVER_PAGE_SIZE=64Ki or H5S3_LOGGING_LEVEL=debug.
# Credentials left empty fall back to AWS_ACCESS_KEY_ID and
# AWS_SECRET_ACCESS_KEY.

`

// InitConfig writes a default configuration file to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	body, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.Write(body)

	return writeConfigFile(path, buf.Bytes())
}
