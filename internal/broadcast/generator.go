package broadcast

import "WeatherAlertWatch/internal/domain"

// Generator renders a partition and publishes it to the live or test targets.
type Generator struct {
	renderer *Renderer
	pub      *Publisher
	live     Targets
	test     Targets
}

// NewGenerator wires rendering and publishing for one event type.
func NewGenerator(renderer *Renderer, pub *Publisher, live, test Targets) *Generator {
	return &Generator{renderer: renderer, pub: pub, live: live, test: test}
}

// Targets returns the files a partition is written to.
func (g *Generator) Targets(test bool) Targets {
	if test {
		return g.test
	}
	return g.live
}

// Generate renders and publishes the partition's artifact pair.
func (g *Generator) Generate(p domain.Partition) (domain.ArtifactPair, error) {
	pair, err := g.renderer.Render(p.Records)
	if err != nil {
		return domain.ArtifactPair{}, err
	}
	if err := g.pub.Publish(pair, g.Targets(p.Test)); err != nil {
		return domain.ArtifactPair{}, err
	}
	return pair, nil
}
