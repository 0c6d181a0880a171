package poem

import "strings"

const FestivalDefault = "default"

// festivals 节日关键词，按顺序匹配
var festivals = []struct {
	Name     string
	Keywords []string
}{
	{Name: "中秋", Keywords: []string{"中秋", "月饼", "赏月", "mid-autumn", "moon"}},
	{Name: "春节", Keywords: []string{"春节", "新年", "除夕", "过年", "spring festival", "new year"}},
	{Name: "元宵", Keywords: []string{"元宵", "灯会", "汤圆", "lantern"}},
	{Name: "端午", Keywords: []string{"端午", "龙舟", "粽子", "dragon boat"}},
	{Name: "七夕", Keywords: []string{"七夕", "鹊桥", "qixi"}},
	{Name: "重阳", Keywords: []string{"重阳", "登高", "茱萸", "double ninth"}},
}

var templates = map[string]Poem{
	"中秋": {
		Title:       "水调歌头·明月几时有",
		Author:      "苏轼",
		Lines:       []string{"明月几时有，把酒问青天。", "不知天上宫阙，今夕是何年。", "人有悲欢离合，月有阴晴圆缺。", "但愿人长久，千里共婵娟。"},
		ImagePrompt: "中秋之夜，一轮金色满月悬于山间，庭院中桂花盛开，红灯笼与月饼摆在石桌上，温暖的中国风插画",
	},
	"春节": {
		Title:       "元日",
		Author:      "王安石",
		Lines:       []string{"爆竹声中一岁除，", "春风送暖入屠苏。", "千门万户曈曈日，", "总把新桃换旧符。"},
		ImagePrompt: "春节清晨，家家户户贴上红色春联，爆竹与烟花点亮古城街巷，喜庆热闹的国潮插画",
	},
	"元宵": {
		Title:       "青玉案·元夕",
		Author:      "辛弃疾",
		Lines:       []string{"东风夜放花千树，", "更吹落、星如雨。", "宝马雕车香满路。", "蓦然回首，那人却在，灯火阑珊处。"},
		ImagePrompt: "元宵灯会，长街挂满花灯，烟火如星雨落下，人群中一位提灯回首的古装少女，梦幻的工笔画风",
	},
	"端午": {
		Title:       "端午",
		Author:      "文秀",
		Lines:       []string{"节分端午自谁言，", "万古传闻为屈原。", "堪笑楚江空渺渺，", "不能洗得直臣冤。"},
		ImagePrompt: "端午时节，江面上龙舟竞渡，岸边艾草与粽子，远山烟雨朦胧，水墨画风格",
	},
	"七夕": {
		Title:       "鹊桥仙·纤云弄巧",
		Author:      "秦观",
		Lines:       []string{"纤云弄巧，飞星传恨，", "银汉迢迢暗度。", "两情若是久长时，", "又岂在朝朝暮暮。"},
		ImagePrompt: "七夕夜空，银河横贯天际，喜鹊搭成的鹊桥上一对古装恋人相会，浪漫唯美的国风插画",
	},
	"重阳": {
		Title:       "九月九日忆山东兄弟",
		Author:      "王维",
		Lines:       []string{"独在异乡为异客，", "每逢佳节倍思亲。", "遥知兄弟登高处，", "遍插茱萸少一人。"},
		ImagePrompt: "重阳登高，秋日山巅红叶层林，远眺故乡的旅人，菊花与茱萸点缀，淡雅的水墨设色画",
	},
	FestivalDefault: {
		Title:       "山居秋暝",
		Author:      "王维",
		Lines:       []string{"空山新雨后，天气晚来秋。", "明月松间照，清泉石上流。"},
		ImagePrompt: "雨后秋山，明月照在松林间，清泉从石上流过，宁静悠远的山水画",
	},
}

// DetectFestival 根据主题识别节日，无法识别时返回 default
func DetectFestival(theme string) string {
	theme = strings.ToLower(theme)
	for _, f := range festivals {
		for _, kw := range f.Keywords {
			if strings.Contains(theme, kw) {
				return f.Name
			}
		}
	}

	return FestivalDefault
}

// Template 返回节日对应的内置诗词
func Template(festival string) Poem {
	p, ok := templates[festival]
	if !ok {
		p = templates[FestivalDefault]
		festival = FestivalDefault
	}

	p.Lines = append([]string(nil), p.Lines...)
	p.Festival = festival
	p.Source = SourceTemplate

	return p
}
