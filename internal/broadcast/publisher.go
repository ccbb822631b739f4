package broadcast

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/fileio"
)

// Targets names the two files of one artifact pair.
type Targets struct {
	Counties  string
	Townships string
}

// Publisher writes artifact pairs with a staged two-phase commit.
type Publisher struct {
	locks   *fileio.Locks
	charset encoding.Encoding
}

// NewPublisher builds a publisher; charset is "utf-8" (default) or "big5".
func NewPublisher(locks *fileio.Locks, charset string) (*Publisher, error) {
	if locks == nil {
		locks = fileio.NewLocks()
	}
	p := &Publisher{locks: locks}

	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
	case "big5":
		p.charset = traditionalchinese.Big5
	default:
		return nil, fmt.Errorf("unsupported artifact charset %q", charset)
	}
	return p, nil
}

// Publish writes the counties file under a temp name, then the townships file; the counties
// file is committed only when the townships write succeeded and rolled back otherwise.
func (p *Publisher) Publish(pair domain.ArtifactPair, targets Targets) error {
	counties, err := p.encode(pair.Counties)
	if err != nil {
		return &domain.Error{Kind: domain.KindTemplateRender, Path: targets.Counties, Detail: "encode", Err: err}
	}
	townships, err := p.encode(pair.Townships)
	if err != nil {
		return &domain.Error{Kind: domain.KindTemplateRender, Path: targets.Townships, Detail: "encode", Err: err}
	}

	release := p.locks.Lock(targets.Counties)
	defer release()

	staged, err := fileio.Stage(targets.Counties, counties)
	if err != nil {
		return &domain.Error{Kind: domain.KindArtifactWrite, Path: targets.Counties, Err: err}
	}

	if err := fileio.WriteFile(targets.Townships, townships); err != nil {
		if rbErr := staged.Rollback(); rbErr != nil {
			err = fmt.Errorf("%w; %v", err, rbErr)
		}
		return &domain.Error{Kind: domain.KindArtifactWrite, Path: targets.Townships, Err: err}
	}

	if err := staged.Commit(); err != nil {
		return &domain.Error{Kind: domain.KindArtifactWrite, Path: targets.Counties, Err: err}
	}
	return nil
}

func (p *Publisher) encode(s string) ([]byte, error) {
	if p.charset == nil {
		return []byte(s), nil
	}
	return p.charset.NewEncoder().Bytes([]byte(s))
}
