package roadmap

// View is the serializable form of a Plan. It uses the key names of the
// roadmap document and adds the sorted track list.
type View struct {
	Project     string         `json:"project"`
	Tracks      []string       `json:"tracks"`
	TimePeriods []TimeSpanView `json:"time_periods"`
}

type TimeSpanView struct {
	Name      string      `json:"name"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Tracks    []string    `json:"tracks"`
	Stories   []*PlanItem `json:"stories"`
}

// NewView captures p.
func NewView(p *Plan) View {
	v := View{
		Project:     p.Project,
		Tracks:      p.Tracks(),
		TimePeriods: make([]TimeSpanView, 0, len(p.TimeSpans)),
	}
	for _, s := range p.TimeSpans {
		items := s.Items
		if items == nil {
			items = []*PlanItem{}
		}
		v.TimePeriods = append(v.TimePeriods, TimeSpanView{
			Name:      s.Name,
			StartDate: s.Start.Format(DateLayout),
			EndDate:   s.End.Format(DateLayout),
			Tracks:    s.Tracks(),
			Stories:   items,
		})
	}
	return v
}
