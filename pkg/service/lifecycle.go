package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Start provisions the service's files, removes any previous containers and
// runs a fresh one. The image is pulled first when it is missing locally or
// update is set.
func (s *Service) Start(ctx context.Context, update bool, services []*Service) error {
	if s.hooks.PreStart != nil {
		if err := s.hooks.PreStart(s, update, services); err != nil {
			return fmt.Errorf("preStart hook: %w", err)
		}
	}
	if err := s.setupFilesystem(); err != nil {
		return err
	}
	if err := s.Cleanup(ctx); err != nil {
		return err
	}

	image, err := s.engine.GetImage(ctx, s.Image)
	if err != nil {
		return err
	}
	if image == nil || update {
		s.pull(ctx)
	}
	return s.run(ctx)
}

// Stop removes every container of the service.
func (s *Service) Stop(ctx context.Context) error {
	return s.Cleanup(ctx)
}

// Cleanup destroys all containers created from the service's base image.
// Containers are destroyed concurrently; the first failure is returned once
// all destructions have settled.
func (s *Service) Cleanup(ctx context.Context) error {
	containers, err := s.engine.GetAllContainers(ctx, s.BaseImage)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, ctr := range containers {
		ctr := ctr
		g.Go(func() error {
			return s.engine.DestroyContainer(ctx, ctr, s.Name)
		})
	}
	return g.Wait()
}

// pull fetches the image. Failures are logged and not returned; a missing
// image then surfaces when the container is created.
func (s *Service) pull(ctx context.Context) {
	if err := s.engine.PullImage(ctx, s.Image); err != nil {
		s.logger.Error("failed to pull image", zap.String("image", s.Image), zap.Error(err))
	}
}

func (s *Service) run(ctx context.Context) error {
	_, err := s.engine.Run(ctx, s.Image, s.Name, s.RunConfig)
	return err
}

// setupFilesystem creates declared folders and copies declared files under
// the containers directory, then hands the file destinations to the
// PostFileSystem hook.
func (s *Service) setupFilesystem() error {
	for _, folder := range s.definition.Folders {
		path := filepath.Join(s.containersDir, folder)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", path, err)
		}
	}

	copied := make([]string, 0, len(s.definition.Files))
	for _, f := range s.definition.Files {
		dest := filepath.Join(s.containersDir, f.Destination)
		src := filepath.Join(s.assetsDir, f.Location)

		needsCopy := f.Overwrite()
		if !needsCopy {
			_, err := os.Stat(dest)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				needsCopy = true
			case err != nil:
				return fmt.Errorf("failed to stat %s: %w", dest, err)
			}
		}
		if needsCopy {
			s.logger.Debug("copying file", zap.String("from", src), zap.String("to", dest))
			if err := copyPath(src, dest); err != nil {
				return err
			}
		}
		copied = append(copied, dest)
	}

	if s.hooks.PostFileSystem != nil {
		if err := s.hooks.PostFileSystem(s, copied); err != nil {
			return fmt.Errorf("postFileSystem hook: %w", err)
		}
	}
	return nil
}

// copyPath copies a file or directory tree from src to dest, creating
// parent directories as needed.
func copyPath(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if !info.IsDir() {
		return copyFile(src, dest, info.Mode().Perm())
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fi.Mode().Perm())
	})
}

func copyFile(src, dest string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	return out.Close()
}
