package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/lectern/core"
)

// tesseractEngine parses tesseract's TSV output into positioned blocks.
type tesseractEngine struct {
	bin    string
	lang   string
	logger *slog.Logger
}

func newTesseractEngine(bin, lang string) *tesseractEngine {
	return &tesseractEngine{
		bin:    bin,
		lang:   lang,
		logger: slog.Default().With("component", "ocr-tesseract"),
	}
}

func (e *tesseractEngine) Name() string { return EngineTesseract }

func (e *tesseractEngine) Recognize(ctx context.Context, imagePath string, pageNum int) (*core.OCRPage, error) {
	out, err := runTesseract(ctx, e.bin, imagePath, "-l", e.lang, "--psm", "3", "tsv")
	if err != nil {
		return nil, err
	}
	page := parseTSV(out, pageNum)
	page.Engine = e.Name()
	e.logger.Debug("page recognized",
		"page", pageNum,
		"blocks", len(page.Blocks),
		"chars", page.TextLen())
	return page, nil
}

// tesseractTextEngine runs tesseract in plain-text mode and wraps the output
// in one synthetic whole-page block.
type tesseractTextEngine struct {
	bin          string
	lang         string
	fullPageBBox [4]float64
}

func newTesseractTextEngine(bin, lang string, fullPageBBox [4]float64) *tesseractTextEngine {
	return &tesseractTextEngine{bin: bin, lang: lang, fullPageBBox: fullPageBBox}
}

func (e *tesseractTextEngine) Name() string { return EngineTesseractText }

func (e *tesseractTextEngine) Recognize(ctx context.Context, imagePath string, pageNum int) (*core.OCRPage, error) {
	out, err := runTesseract(ctx, e.bin, imagePath, "-l", e.lang)
	if err != nil {
		return nil, err
	}
	page := &core.OCRPage{Page: pageNum, Engine: e.Name()}
	if text := strings.TrimSpace(string(out)); text != "" {
		page.Blocks = []core.OCRBlock{{Text: text, BBox: e.fullPageBBox, Confidence: 0}}
	}
	return page, nil
}

func runTesseract(ctx context.Context, bin, imagePath string, args ...string) ([]byte, error) {
	cmdArgs := append([]string{imagePath, "stdout"}, args...)
	cmd := exec.CommandContext(ctx, bin, cmdArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s",
			ErrOCRFailed, bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// tsvWord is one level-5 row of tesseract TSV output.
type tsvWord struct {
	par, line, word          int
	left, top, width, height int
	conf                     float64
	text                     string
}

// parseTSV groups TSV word rows into per-block OCR blocks. Block boxes are
// pixel unions of their word boxes; confidence is the mean word confidence
// on a 0..1 scale. Page dimensions come from the level-1 row.
func parseTSV(data []byte, pageNum int) *core.OCRPage {
	page := &core.OCRPage{Page: pageNum}

	words := make(map[int][]tsvWord)
	var blockNums []int

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		cols := strings.SplitN(line, "\t", 12)
		level, err := strconv.Atoi(cols[0])
		if err != nil {
			// Header row and anything malformed.
			continue
		}

		switch level {
		case 1:
			if len(cols) >= 10 {
				page.Width, _ = strconv.Atoi(cols[8])
				page.Height, _ = strconv.Atoi(cols[9])
			}
		case 5:
			if len(cols) < 12 {
				continue
			}
			text := strings.TrimSpace(cols[11])
			if text == "" {
				continue
			}
			conf, err := strconv.ParseFloat(cols[10], 64)
			if err != nil || conf < 0 {
				continue
			}
			blockNum, _ := strconv.Atoi(cols[2])
			w := tsvWord{conf: conf, text: text}
			w.par, _ = strconv.Atoi(cols[3])
			w.line, _ = strconv.Atoi(cols[4])
			w.word, _ = strconv.Atoi(cols[5])
			w.left, _ = strconv.Atoi(cols[6])
			w.top, _ = strconv.Atoi(cols[7])
			w.width, _ = strconv.Atoi(cols[8])
			w.height, _ = strconv.Atoi(cols[9])

			if _, seen := words[blockNum]; !seen {
				blockNums = append(blockNums, blockNum)
			}
			words[blockNum] = append(words[blockNum], w)
		}
	}

	sort.Ints(blockNums)
	for _, blockNum := range blockNums {
		page.Blocks = append(page.Blocks, assembleBlock(words[blockNum]))
	}
	return page
}

// assembleBlock joins a block's words: spaces within a line, newlines
// between lines.
func assembleBlock(ws []tsvWord) core.OCRBlock {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].par != ws[j].par {
			return ws[i].par < ws[j].par
		}
		if ws[i].line != ws[j].line {
			return ws[i].line < ws[j].line
		}
		return ws[i].word < ws[j].word
	})

	var sb strings.Builder
	confSum := 0.0
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	curPar, curLine := ws[0].par, ws[0].line
	for i, w := range ws {
		if i > 0 {
			if w.par != curPar || w.line != curLine {
				sb.WriteByte('\n')
				curPar, curLine = w.par, w.line
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(w.text)
		confSum += w.conf
		minX = math.Min(minX, float64(w.left))
		minY = math.Min(minY, float64(w.top))
		maxX = math.Max(maxX, float64(w.left+w.width))
		maxY = math.Max(maxY, float64(w.top+w.height))
	}

	return core.OCRBlock{
		Text:       sb.String(),
		BBox:       [4]float64{minX, minY, maxX, maxY},
		Confidence: confSum / float64(len(ws)) / 100.0,
	}
}
