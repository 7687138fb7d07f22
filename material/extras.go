package material

import "github.com/mogaika/scene_composer/records"

// Extras flattens the descriptor into a metadata bag attached to exported materials.
func (d *Descriptor) Extras() map[string]interface{} {
	extras := map[string]interface{}{
		"ShaderPackage":   d.ShpkName,
		"Material":        d.MtrlPath,
		"HashStr":         d.HashStr(),
		"RenderBackfaces": d.RenderBackfaces(),
		"IsTransparent":   d.IsTransparent(),
	}

	for id, value := range d.constants {
		extras[id.String()] = value
	}

	for usage, path := range d.textures {
		name := usage.String()
		extras[name] = path.GamePath
		extras[name+"_FullPath"] = path.FullPath
	}

	for category, value := range d.shaderKeys {
		extras[category.String()] = records.KeyValueName(category, value)
	}

	if d.customize != nil {
		p := d.customize
		extras["LeftIrisColor"] = p.LeftColor
		extras["RightIrisColor"] = p.RightColor
		extras["MainColor"] = p.MainColor
		extras["SkinColor"] = p.SkinColor
		extras["MeshColor"] = p.MeshColor
		extras["LipColor"] = p.LipColor
		extras["OptionColor"] = p.OptionColor
		extras["FacePaintUVOffset"] = p.FacePaintUVOffset
		extras["FacePaintUVMultiplier"] = p.FacePaintUVMultiplier
		extras["MuscleTone"] = p.MuscleTone
	}
	if d.customizeData != nil {
		extras["Highlights"] = d.customizeData.Highlights
		extras["LipStick"] = d.customizeData.LipStick
	}
	if d.stainColor != nil {
		extras["StainColor"] = *d.stainColor
	}
	if d.colorTable != nil {
		extras["ColorTable"] = d.colorTable.Rows
	}
	return extras
}
