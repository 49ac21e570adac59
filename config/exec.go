package config

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GenerateSwagger 重新生成 docs 包, 开发时通过 -swag 调用
func GenerateSwagger(ctx context.Context) error {
	args := []string{
		"run",
		"github.com/swaggo/swag/cmd/swag@latest",
		"init",
		"-g", "cmd/server/main.go",
		"-o", "docs",
		"--parseInternal",
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("swag init: %w; stdout: %s; stderr: %s",
			err, strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()))
	}
	return nil
}
