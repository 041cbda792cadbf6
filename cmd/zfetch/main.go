// Command zfetch downloads Version 3 Z-machine story files from the IF
// Archive's zcode index, skipping anything that isn't a .z3.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const indexURL = "https://www.ifarchive.org/indexes/if-archive/games/zcode/"

var z3Suffix = regexp.MustCompile(`\.z3$`)

type game struct {
	name string
	url  string
}

func main() {
	outputDir := flag.String("output", "stories", "Directory to write downloaded story files to")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	games, err := fetchIndex(indexURL)
	if err != nil {
		fmt.Printf("Failed to fetch index: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d V3 story files to download\n", len(games))

	downloaded, skipped, failed := 0, 0, 0
	client := &http.Client{Timeout: 30 * time.Second}
	for i, g := range games {
		destPath := filepath.Join(*outputDir, g.name)
		if _, err := os.Stat(destPath); err == nil {
			fmt.Printf("[%d/%d] Skipping %s (already exists)\n", i+1, len(games), g.name)
			skipped++
			continue
		}

		fmt.Printf("[%d/%d] Downloading %s... ", i+1, len(games), g.name)
		if err := downloadGame(client, g, destPath); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failed++
			continue
		}
		fmt.Println("OK")
		downloaded++
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Printf("\nDone! Downloaded: %d, Skipped: %d, Failed: %d\n", downloaded, skipped, failed)
}

// fetchIndex downloads and parses the archive's directory listing, returning
// only entries whose filename ends in .z3.
func fetchIndex(url string) ([]game, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	res, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		return nil, fmt.Errorf("bad status code: %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var games []game
	doc.Find("dl dt").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Find("a").Attr("href")
		if !exists || !z3Suffix.MatchString(href) {
			return
		}
		games = append(games, game{
			name: filepath.Base(href),
			url:  strings.TrimSuffix(url, "/") + "/" + filepath.Base(href),
		})
	})
	return games, nil
}

func downloadGame(client *http.Client, g game, destPath string) error {
	resp, err := client.Get(g.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 || data[0] != 3 {
		return fmt.Errorf("not a V3 story file")
	}

	return os.WriteFile(destPath, data, 0644)
}
