package doc

// Snapshot is the whole-document exchange format used at external
// checkpoints (settings stores, file packagers). The core neither reads
// nor writes files itself.
type Snapshot struct {
	StatData    map[string]any `json:"stat_data" yaml:"stat_data"`
	DisplayData map[string]any `json:"display_data" yaml:"display_data"`
	DeltaData   map[string]any `json:"delta_data" yaml:"delta_data"`
}

func (d *Doc) Export() *Snapshot {
	return &Snapshot{
		StatData:    Copy(d.stat).(map[string]any),
		DisplayData: Copy(d.display).(map[string]any),
		DeltaData:   Copy(d.delta).(map[string]any),
	}
}

func (d *Doc) Import(s *Snapshot) {
	d.stat = map[string]any{}
	d.display = map[string]any{}
	d.delta = map[string]any{}
	if s == nil {
		return
	}
	if s.StatData != nil {
		d.stat = Copy(s.StatData).(map[string]any)
	}
	if s.DisplayData != nil {
		d.display = Copy(s.DisplayData).(map[string]any)
	}
	if s.DeltaData != nil {
		d.delta = Copy(s.DeltaData).(map[string]any)
	}
}
