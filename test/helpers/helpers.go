package helpers

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/onsi/gomega"
)

func ReadEnvFromFile(fileName string) map[string]string {
	// use shell to parse the env file to support quotations, comments, etc

	// #nosec G204 -- test where we we control the filename
	cmd := exec.Command("env", "-i", "bash", "-c", fmt.Sprintf("source %s && env", fileName))
	output, err := cmd.Output()

	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	readEnv := map[string]string{}
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.SplitN(line, "=", 2)
		if fields[0] == "_" || fields[0] == "SHLVL" || fields[0] == "PWD" || len(fields) != 2 {
			continue
		}
		readEnv[fields[0]] = fields[1]
	}
	return readEnv
}

// UnsetConductorEnv removes every environment variable conductor reads
func UnsetConductorEnv() {
	names := []string{"TEST_ENV", "ENABLE_ALLURE", "SHARED_LOG_FILE", "MAX_RETRIES", "RETRY_ALL_FAILURES"}
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, "CONDUCTOR_") {
			names = append(names, name)
		}
	}

	for _, name := range names {
		os.Unsetenv(name)
	}
}
