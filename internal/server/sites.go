package server

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Site is one parent-row source: a tenant-like scope owning a timesheet
// list and the task list its rows reference.
type Site struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	ListID     string `yaml:"list_id"`
	TaskListID string `yaml:"task_list_id"`
}

type sitesFile struct {
	Version int    `yaml:"version"`
	Sites   []Site `yaml:"sites"`
}

func loadSites(path string) (map[string]Site, error) {
	if path == "" {
		p, err := defaultSitesPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sf sitesFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, err
	}
	if sf.Version != 1 {
		return nil, errors.New("sites: unsupported version")
	}
	if len(sf.Sites) == 0 {
		return nil, errors.New("sites: empty")
	}

	m := make(map[string]Site, len(sf.Sites))
	for _, s := range sf.Sites {
		if s.ID == "" || s.ListID == "" {
			return nil, errors.New("sites: invalid site")
		}
		m[s.ID] = s
	}
	return m, nil
}

func defaultSitesPath() (string, error) {
	path := "config/sites.yaml"
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: sites config not found")
}
