package domain

// Clone methods return copies that share no slices, maps or pointers with
// the receiver, so a copy can be rewritten without touching the original.

func (c Client) Clone() Client {
	c.Extra = c.Extra.Clone()
	return c
}

func (m Material) Clone() Material {
	m.Extra = m.Extra.Clone()
	return m
}

func (a Attachment) Clone() Attachment {
	a.Extra = a.Extra.Clone()
	return a
}

func (j Job) Clone() Job {
	if j.Attachments != nil {
		files := make([]Attachment, len(j.Attachments))
		for i, f := range j.Attachments {
			files[i] = f.Clone()
		}
		j.Attachments = files
	}
	j.Extra = j.Extra.Clone()
	return j
}

func (li LineItem) Clone() LineItem {
	if li.VATRate != nil {
		rate := *li.VATRate
		li.VATRate = &rate
	}
	li.Extra = li.Extra.Clone()
	return li
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

func (q Quote) Clone() Quote {
	q.Items = cloneItems(q.Items)
	if q.Total != nil {
		total := *q.Total
		q.Total = &total
	}
	q.Extra = q.Extra.Clone()
	return q
}

func (inv Invoice) Clone() Invoice {
	inv.Items = cloneItems(inv.Items)
	if inv.VATRate != nil {
		rate := *inv.VATRate
		inv.VATRate = &rate
	}
	if inv.PaidAt != nil {
		paidAt := *inv.PaidAt
		inv.PaidAt = &paidAt
	}
	inv.Extra = inv.Extra.Clone()
	return inv
}

func (a Appointment) Clone() Appointment {
	a.Extra = a.Extra.Clone()
	return a
}
