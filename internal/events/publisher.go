package events

import "maps"

// Publisher is the typed facade producers use so payload shapes stay in one place.
type Publisher struct {
	em Emitter
}

// NewPublisher wraps em. A nil emitter discards everything.
func NewPublisher(em Emitter) *Publisher {
	if em == nil {
		em = Discard
	}
	return &Publisher{em: em}
}

func (p *Publisher) PackProgress(downloaded, total uint64) {
	p.em.Emit(AIPackProgress, PackProgressPayload{
		Downloaded: downloaded,
		Total:      total,
		Percent:    Percent(downloaded, total),
	})
}

func (p *Publisher) PackPaused(downloaded, total uint64) {
	p.em.Emit(AIPackPaused, PackPausedPayload{Downloaded: downloaded, Total: total})
}

func (p *Publisher) PackExtracting(total int) {
	p.em.Emit(AIPackExtracting, PackExtractingPayload{Total: total})
}

func (p *Publisher) PackExtractProgress(current, total int) {
	p.em.Emit(AIPackExtractProgress, PackExtractProgressPayload{
		Current: current,
		Total:   total,
		Percent: Percent(uint64(current), uint64(total)),
	})
}

// PackLog emits {message, ...fields}. A "message" key in fields is overridden.
func (p *Publisher) PackLog(message string, fields map[string]any) {
	payload := make(map[string]any, len(fields)+1)
	maps.Copy(payload, fields)
	payload["message"] = message
	p.em.Emit(AIPackLog, payload)
}

func (p *Publisher) PackDone() { p.em.Emit(AIPackDone, nil) }

func (p *Publisher) PackError(message string) { p.em.Emit(AIPackError, message) }

func (p *Publisher) Progress(payload ProgressPayload) { p.em.Emit(ProcessingProgress, payload) }

func (p *Publisher) Log(line string) { p.em.Emit(ProcessingLog, line) }

func (p *Publisher) Done(payload DonePayload) { p.em.Emit(ProcessingDone, payload) }

func (p *Publisher) ConversionStart(message string) { p.em.Emit(ModelConversionStart, message) }

func (p *Publisher) ConversionDone(message string) { p.em.Emit(ModelConversionDone, message) }

func (p *Publisher) ConversionError(message string) { p.em.Emit(ModelConversionError, message) }
